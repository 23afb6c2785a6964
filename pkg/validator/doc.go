/*
Package validator provides struct-tag validation for the PubSub config
model, wrapping go-playground/validator with one custom rule:
  - pubsub_scheme: PubSubConnection.Address starts with a transport
    scheme this module's composite dialer actually supports
    (opc.udp://, mqtt://, mqtts://)

pkg/pubsub/model.Builder calls ValidateStruct against each
PubSubConnection/WriterGroup/ReaderGroup at Build() time for the §7
ConfigurationError invariants expressible as field tags; invariants
spanning sibling fields in a way a single struct tag can't reach
(FixedSizeBuffer against a variable-length field, KeepAliveTime only
mattering when Acyclic is set) stay hand-checked in builder.go.

Usage:

	import "github.com/fieldbus-systems/opcua-pubsub/pkg/validator"

	v := validator.New()
	err := v.ValidateStruct(conn)
*/
package validator
