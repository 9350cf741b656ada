package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemBody struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gte=1,lte=99"`
	Note      string `json:"note" binding:"max=5"`
}

func setupBindRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/items", func(c *gin.Context) {
		var body addItemBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleBindError(t *testing.T) {
	router := setupBindRouter()

	t.Run("valid body", func(t *testing.T) {
		w := postJSON(router, `{"product_id":"3f2c1d2e-8a4b-4c8e-9f1a-2b3c4d5e6f70","quantity":2}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("field errors use json names", func(t *testing.T) {
		w := postJSON(router, `{"product_id":"nope","quantity":120,"note":"too long"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)

		messages := map[string]string{}
		for _, d := range resp.Error.Details {
			messages[d.Field] = d.Message
		}
		assert.Equal(t, "Invalid UUID format", messages["product_id"])
		assert.Equal(t, "Must be less than or equal to 99", messages["quantity"])
		assert.Equal(t, "Must be at most 5 characters", messages["note"])
	})

	t.Run("missing required", func(t *testing.T) {
		w := postJSON(router, `{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "This field is required")
	})

	t.Run("malformed json", func(t *testing.T) {
		for _, body := range []string{`{"product_id":`, `{"quantity":1,}`} {
			w := postJSON(router, body)
			require.Equal(t, http.StatusBadRequest, w.Code, body)
			assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON, body)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		w := postJSON(router, `{"product_id":"3f2c1d2e-8a4b-4c8e-9f1a-2b3c4d5e6f70","quantity":"two"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
		assert.Contains(t, w.Body.String(), "Must be a int")
	})
}

func TestValidationDetails_NonValidatorError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}
