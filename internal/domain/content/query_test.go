package content

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisoryhub/internal/changefeed"
	"advisoryhub/internal/storage"
)

func (e *testEnv) seedItem(t *testing.T, item Item, categoryIDs ...string) Item {
	t.Helper()
	if item.SourceKind == "" {
		item.SourceKind = SourceExternalURL
	}
	if item.ContentURL == "" {
		item.ContentURL = "https://example.com/" + item.Title
	}
	if item.ContentType == "" {
		item.ContentType = TypeDocument
	}
	if err := e.db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if len(categoryIDs) > 0 {
		if err := e.repo.ReplaceCategories(context.Background(), item.ID, categoryIDs); err != nil {
			t.Fatalf("seed categories: %v", err)
		}
	}
	return item
}

func titles(views []ItemView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Title)
	}
	return out
}

func TestList_CategoriesMatchAny(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCategory(t, "A")
	b := env.mustCategory(t, "B")
	unused := env.mustCategory(t, "Unused")

	base := time.Now().Add(-time.Hour)
	env.seedItem(t, Item{Title: "only A", CreatedAt: base.Add(1 * time.Minute)}, a)
	env.seedItem(t, Item{Title: "only B", CreatedAt: base.Add(2 * time.Minute)}, b)
	env.seedItem(t, Item{Title: "neither", CreatedAt: base.Add(3 * time.Minute)})
	env.seedItem(t, Item{Title: "both", CreatedAt: base.Add(4 * time.Minute)}, a, b)

	list, err := env.svc.List(ctx, consultant, ListFilter{CategoryIDs: []string{a, b}})
	require.NoError(t, err)
	assert.Equal(t, []string{"both", "only B", "only A"}, titles(list))

	list, err = env.svc.List(ctx, consultant, ListFilter{CategoryIDs: []string{unused}})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	list, err = env.svc.List(ctx, consultant, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"both", "neither", "only B", "only A"}, titles(list))
}

func TestList_SearchTitleOrDescriptionCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedItem(t, Item{Title: "Business Plan", Description: "Template for founders"})
	env.seedItem(t, Item{Title: "Cash flow", Description: "Quarterly BUSINESS review"})
	env.seedItem(t, Item{Title: "Hiring", Description: "100% remote teams"})
	env.seedItem(t, Item{Title: "Payroll", Description: "Paid 100 times"})

	list, err := env.svc.List(ctx, consultant, ListFilter{Search: "business"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Business Plan", "Cash flow"}, titles(list))

	list, err = env.svc.List(ctx, consultant, ListFilter{Search: "FOUNDERS"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Business Plan"}, titles(list))

	list, err = env.svc.List(ctx, consultant, ListFilter{Search: "100%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hiring"}, titles(list))
}

func TestList_SearchNonASCII(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedItem(t, Item{Title: "Änderung der Satzung"})
	env.seedItem(t, Item{Title: "Annual report"})

	for _, term := range []string{"Ä", "Änd", "ÄNDERUNG", "satzung"} {
		list, err := env.svc.List(ctx, consultant, ListFilter{Search: term})
		require.NoError(t, err)
		assert.Equal(t, []string{"Änderung der Satzung"}, titles(list), term)
	}
}

func TestList_TypeFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedItem(t, Item{Title: "talk", ContentType: TypeVideo})
	env.seedItem(t, Item{Title: "sheet", ContentType: TypeSpreadsheet})
	env.seedItem(t, Item{Title: "annual", ContentType: TypeReport})

	for _, raw := range []string{"videos", "video", "Videos "} {
		list, err := env.svc.List(ctx, nil, ListFilter{Type: raw})
		require.NoError(t, err, raw)
		assert.Equal(t, []string{"talk"}, titles(list), raw)
		assert.Equal(t, "video", list[0].Icon)
	}

	list, err := env.svc.List(ctx, nil, ListFilter{Type: "spreadsheets"})
	require.NoError(t, err)
	assert.Equal(t, "table", list[0].Icon)

	list, err = env.svc.List(ctx, nil, ListFilter{Type: "all"})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = env.svc.List(ctx, nil, ListFilter{Type: "podcasts"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestList_Limit(t *testing.T) {
	env := newTestEnv(t)
	env.svc.opts.ListLimit = 2

	base := time.Now()
	for i, title := range []string{"a", "b", "c"} {
		env.seedItem(t, Item{Title: title, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	list, err := env.svc.List(context.Background(), consultant, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, titles(list))
}

func TestList_PremiumLockedForAnonymous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedItem(t, Item{Title: "free"})
	env.seedItem(t, Item{Title: "paid", IsPremium: true, ContentURL: "https://example.com/secret"})

	list, err := env.svc.List(ctx, nil, ListFilter{Search: "paid"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Locked)
	assert.Empty(t, list[0].ContentURL)

	list, err = env.svc.List(ctx, client, ListFilter{Search: "paid"})
	require.NoError(t, err)
	assert.False(t, list[0].Locked)
	assert.Equal(t, "https://example.com/secret", list[0].ContentURL)
}

func TestList_StoredFilesOnlyExposeTheDownloadRoute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Submit(ctx, consultant, SubmitInput{
		Title: "Secret Plan", ContentType: TypeDocument, IsPremium: true, File: fileOf("Secret Plan.pdf", "numbers"),
	})
	require.NoError(t, err)

	list, err := env.svc.List(ctx, nil, ListFilter{Search: "secret"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Locked)
	assert.Empty(t, list[0].ContentURL)
	assert.Empty(t, list[0].DownloadURL)
	assert.Empty(t, list[0].OriginalFilename)

	view, err := env.svc.Get(ctx, client, res.Item.ID)
	require.NoError(t, err)
	assert.False(t, view.Locked)
	assert.Empty(t, view.ContentURL)
	assert.Equal(t, "/api/v1/content/"+res.Item.ID+"/download", view.DownloadURL)
	assert.Equal(t, "Secret Plan.pdf", view.OriginalFilename)
}

func TestDelete_RowFirstThenBlobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.mustCategory(t, "Tax")

	res, err := env.svc.Submit(ctx, consultant, SubmitInput{
		Title: "Guide", ContentType: TypeDocument, File: fileOf("guide.pdf", "g"),
		Thumbnail: imageOf("g.png", "p"), CategoryIDs: []string{cat},
	})
	require.NoError(t, err)

	events, cancel := env.feed.Subscribe("content")
	defer cancel()

	assert.ErrorIs(t, env.svc.Delete(ctx, consultant, res.Item.ID, false), ErrConfirmationRequired)
	assert.Len(t, env.snapshot(t).Items, 1)

	require.NoError(t, env.svc.Delete(ctx, consultant, res.Item.ID, true))
	snap := env.snapshot(t)
	assert.Empty(t, snap.Items)
	assert.Empty(t, snap.Links)
	assert.Empty(t, snap.Objects[storage.ContentBucket])
	assert.Empty(t, snap.Objects[storage.ThumbnailBucket])

	ev := <-events
	assert.Equal(t, changefeed.OpDelete, ev.Op)
	assert.Equal(t, res.Item.ID, ev.ID)

	assert.ErrorIs(t, env.svc.Delete(ctx, consultant, res.Item.ID, true), ErrNotFound)
}

func TestDelete_BlobFailureDoesNotRestoreRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Submit(ctx, consultant, SubmitInput{Title: "Guide", ContentType: TypeDocument, File: fileOf("guide.pdf", "g")})
	require.NoError(t, err)

	env.blobs.removeErr[storage.ContentBucket] = errors.New("permission denied")
	require.NoError(t, env.svc.Delete(ctx, consultant, res.Item.ID, true))

	snap := env.snapshot(t)
	assert.Empty(t, snap.Items)
	assert.Equal(t, []string{"guide.pdf:1"}, snap.Objects[storage.ContentBucket])

	_, err = env.svc.Get(ctx, consultant, res.Item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.svc.Delete(ctx, consultant, res.Item.ID, true), ErrNotFound)
}

func TestUpdate_EditsFieldsAndReplacesCategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.mustCategory(t, "A")
	b := env.mustCategory(t, "B")

	res, err := env.svc.Submit(ctx, consultant, SubmitInput{
		Title: "Draft", ContentType: TypeReport, File: fileOf("r.pdf", "r"),
		Thumbnail: imageOf("r.png", "p"), CategoryIDs: []string{a},
	})
	require.NoError(t, err)

	title := "  Final "
	premium := true
	thumb := "https://img.example.com/final.png"
	cats := []string{b}
	updated, err := env.svc.Update(ctx, consultant, res.Item.ID, UpdateInput{
		Title: &title, IsPremium: &premium, ThumbnailURL: &thumb, CategoryIDs: &cats,
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Item.Title)
	assert.True(t, updated.Item.IsPremium)
	assert.Equal(t, thumb, updated.Item.ThumbnailURL)
	assert.Equal(t, []string{b}, updated.CategoryIDs)

	snap := env.snapshot(t)
	assert.Equal(t, []ItemCategory{{ContentID: res.Item.ID, CategoryID: b}}, snap.Links)
	assert.Empty(t, snap.Objects[storage.ThumbnailBucket])

	desc := "notes"
	updated, err = env.svc.Update(ctx, consultant, res.Item.ID, UpdateInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Item.Title)
	assert.Equal(t, []string{b}, updated.CategoryIDs)

	empty := " "
	_, err = env.svc.Update(ctx, consultant, res.Item.ID, UpdateInput{Title: &empty})
	assert.ErrorIs(t, err, ErrValidation)
	missing := []string{"nope"}
	_, err = env.svc.Update(ctx, consultant, res.Item.ID, UpdateInput{CategoryIDs: &missing})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.svc.Update(ctx, consultant, "missing", UpdateInput{Description: &desc})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Submit(ctx, consultant, SubmitInput{
		Title: "Model", ContentType: TypeSpreadsheet, File: fileOf(`C:\Users\me\Q3 Model.xlsx`, "cells"), IsPremium: true,
	})
	require.NoError(t, err)

	_, err = env.svc.Download(ctx, nil, res.Item.ID)
	assert.ErrorIs(t, err, ErrSignInRequired)

	dl, err := env.svc.Download(ctx, client, res.Item.ID)
	require.NoError(t, err)
	defer dl.Body.Close()
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "cells", string(body))
	assert.Equal(t, "Q3 Model.xlsx", dl.Filename)
	assert.Equal(t, `C:\Users\me\Q3 Model.xlsx`, res.Item.OriginalFilename)

	ext, err := env.svc.Submit(ctx, consultant, SubmitInput{Title: "Link", ContentType: TypeVideo, ExternalURL: "https://v.example.com/1"})
	require.NoError(t, err)
	dl, err = env.svc.Download(ctx, nil, ext.Item.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://v.example.com/1", dl.RedirectURL)
	assert.Nil(t, dl.Body)

	_, err = env.svc.Download(ctx, nil, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
