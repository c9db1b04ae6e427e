package response

import "github.com/gin-gonic/gin"

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

// SuccessWithWarnings is used for partial successes: the primary write
// went through but a secondary step did not.
func SuccessWithWarnings(c *gin.Context, statusCode int, data interface{}, warnings []string) {
	if len(warnings) == 0 {
		Success(c, statusCode, data)
		return
	}
	c.JSON(statusCode, gin.H{
		"success":  true,
		"data":     data,
		"warnings": warnings,
	})
}

// CustomError writes the error envelope. message may be a string, an error
// or a validation map.
func CustomError(c *gin.Context, statusCode int, code string, message interface{}) {
	switch m := message.(type) {
	case string:
		Error(c, statusCode, code, m)
	case error:
		Error(c, statusCode, code, m.Error())
	default:
		ErrorWithDetails(c, statusCode, code, code, m)
	}
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
