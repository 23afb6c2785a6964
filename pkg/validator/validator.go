package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport/broker/mqtt"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport/udp"
)

// pubsubSchemes are the connection-address prefixes a configured
// PubSubConnection.Address must start with: one per transport adapter
// wired into the composite dialer.
var pubsubSchemes = []string{
	udp.Scheme + "://",
	mqtt.SchemePlain + "://",
	mqtt.SchemeTLS + "://",
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("pubsub_scheme", validatePubSubScheme)

	return &Validator{
		validate: v,
	}
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// ValidateVar validates a single variable against a tag
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}

// validatePubSubScheme reports whether a connection address starts with
// a transport scheme the composite dialer recognizes.
func validatePubSubScheme(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	for _, scheme := range pubsubSchemes {
		if strings.HasPrefix(addr, scheme) {
			return true
		}
	}
	return false
}
