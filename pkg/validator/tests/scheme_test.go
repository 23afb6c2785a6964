package validator_test

import (
	"testing"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/test"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/validator"
)

type ConnectionAddressSuite struct {
	*test.Suite
}

func TestConnectionAddressSuite(t *testing.T) {
	test.Run(t, &ConnectionAddressSuite{Suite: test.NewSuite()})
}

type ConnectionAddress struct {
	Address string `validate:"required,pubsub_scheme"`
}

func (s *ConnectionAddressSuite) TestPubSubScheme() {
	v := validator.New()

	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"Empty", "", true},
		{"UnknownScheme", "http://232.1.2.100:4840", true},
		{"MissingSlashes", "opc.udp:232.1.2.100:4840", true},
		{"UDPMulticast", "opc.udp://232.1.2.100:4840", false},
		{"MQTTPlain", "mqtt://broker.example.com:1883", false},
		{"MQTTTLS", "mqtts://broker.example.com:8883", false},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			err := v.ValidateStruct(ConnectionAddress{Address: tt.address})
			if tt.wantErr {
				s.Error(err, "expected error for address: %s", tt.address)
			} else {
				s.NoError(err, "expected no error for address: %s", tt.address)
			}
		})
	}
}
