package handler

import (
	"net/http"
	"reflect"
	"strconv"

	"clubebar/internal/apierror"
	"clubebar/internal/middleware"
	"clubebar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is validated as a number so min=0 and gt=0 work on money fields.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs the validator tags.
// On false the response is already written.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON inválido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError writes the envelope for a service error. 5xx are logged here
// because the client only sees a generic message.
func respondError(c *gin.Context, err error) {
	status, body := apierror.Respond(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("handler: erro interno")
	}
	c.JSON(status, body)
}

// operador builds the register identity from the JWT claims.
func operador(c *gin.Context) (service.Operador, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticação requerida"))
		return service.Operador{}, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Token sem operador válido"))
		return service.Operador{}, false
	}
	return service.Operador{ID: id, Nome: claims.NomeExibicao()}, true
}

func paramUUID(c *gin.Context, nome string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(nome))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads a positive int query param, falling back to def when absent,
// malformed or above max.
func queryInt(c *gin.Context, nome string, def, max int) int {
	v, err := strconv.Atoi(c.Query(nome))
	if err != nil || v < 1 || (max > 0 && v > max) {
		return def
	}
	return v
}
