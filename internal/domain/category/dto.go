package category

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}
