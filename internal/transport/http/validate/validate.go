package validate

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hasanat-app/deeds-service/internal/domain"
)

var vld = validator.New(validator.WithRequiredStructEnabled())

func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation("invalid json body: " + err.Error())
	}
	return nil
}

// Struct runs tag validation and folds field errors into one AppError meta.
func Struct(v any) error {
	err := vld.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domain.ErrValidation(err.Error())
	}
	meta := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		meta[fe.Field()] = fe.Tag()
	}
	return domain.ErrValidationMeta("validation failed", meta)
}
