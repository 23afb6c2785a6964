package model

// ConnectionRole distinguishes a publisher-role connection (owns
// WriterGroups) from a subscriber-role connection (owns ReaderGroups).
type ConnectionRole int

const (
	RolePublisher ConnectionRole = iota
	RoleSubscriber
)

// BrokerCredentials carries optional MQTT broker authentication.
type BrokerCredentials struct {
	Username string
	Password string
}

// PubSubConnection is a transport endpoint owning either WriterGroups
// (publisher role) or ReaderGroups (subscriber role), never both.
type PubSubConnection struct {
	Role               ConnectionRole
	Address            string `validate:"required,pubsub_scheme"`
	NetworkInterface   string
	BrokerCredentials  *BrokerCredentials
	Acyclic            bool
	PublisherID        PublisherID
	Enabled            bool

	// WriterGroups and ReaderGroups validate separately, one group at a
	// time, so Builder can attribute a failure to its index.
	WriterGroups []WriterGroup `validate:"-"`
	ReaderGroups []ReaderGroup `validate:"-"`
}
