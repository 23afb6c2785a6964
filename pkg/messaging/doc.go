/*
Package messaging provides a unified abstraction layer for message brokers.

This package defines the core interfaces for producing and consuming messages
across messaging systems. Adapters present in this module: Kafka and an
in-process memory broker.

# Architecture

The package follows the adapter pattern with decoupled dependencies:
  - Core interfaces are defined here (zero external dependencies)
  - Each adapter lives in its own sub-package (pkg/messaging/adapters/{driver})
  - Users import only the adapter they need, pulling only that SDK

# Usage

	import (
	    "github.com/fieldbus-systems/opcua-pubsub/pkg/messaging"
	    "github.com/fieldbus-systems/opcua-pubsub/pkg/messaging/adapters/kafka"
	)

	// Create a Kafka broker
	broker, err := kafka.New(kafka.Config{Brokers: []string{"localhost:9092"}})

	// Create a producer
	producer, err := broker.Producer("uam.spdu")
	defer producer.Close()

	// Publish a Safety Protocol Data Unit to the non-safe side
	err = producer.Publish(ctx, &messaging.Message{
	    ID:      uuid.New().String(),
	    Topic:   "uam.spdu",
	    Payload: spduBytes,
	})
*/
package messaging
