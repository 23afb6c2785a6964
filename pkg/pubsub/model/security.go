package model

// SecurityMode selects whether a group's network messages are signed,
// signed and encrypted, or sent in the clear.
type SecurityMode int

const (
	SecurityModeNone SecurityMode = iota
	SecurityModeSign
	SecurityModeSignAndEncrypt
)

// SecurityKeyServicesRef points at an external SKS endpoint whose keys
// a WriterGroup or ReaderGroup may use.
type SecurityKeyServicesRef struct {
	EndpointURL       string
	ServerCertificate []byte
}
