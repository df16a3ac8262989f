package handler

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"cashpos/internal/apierror"
	"cashpos/internal/apperror"
	"cashpos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0 work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	return bind(c, req, false)
}

// bindOptional is bindAndValidate for requests whose fields are all optional:
// an empty body binds as the zero request.
func bindOptional(c *gin.Context, req interface{}) bool {
	return bind(c, req, true)
}

func bind(c *gin.Context, req interface{}, emptyOK bool) bool {
	if err := c.ShouldBindJSON(req); err != nil && !(emptyOK && errors.Is(err, io.EOF)) {
		// money types reject bad amounts while decoding
		if apperror.IsValidation(err) {
			respondError(c, err)
			return false
		}
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		if ves, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ves {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError writes err with the status of its domain type. 500s are logged
// with the request id and sent without detail.
func respondError(c *gin.Context, err error) {
	status := apierror.Status(err)
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.JSON(status, apierror.From(err))
}

// registerID parses the :id path parameter.
func registerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierror.New("invalid register id"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query parameter "+key))
		return 0, false
	}
	return n, true
}

func employeeID(c *gin.Context) string {
	return middleware.GetClaims(c).UserID
}
