package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/searchvault/internal/model"
)

var validate = validator.New()

// indexNameRegex follows the search service's index naming rules.
var indexNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,127}$`)

func init() {
	validate.RegisterValidation("index_name", func(fl validator.FieldLevel) bool {
		return indexNameRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("version_id", func(fl validator.FieldLevel) bool {
		_, err := model.ParseVersionID(fl.Field().String())
		return err == nil
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}
