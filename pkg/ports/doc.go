/*
Package ports defines the driven ports (interfaces) of the chatflow engine.

These interfaces decouple the traversal engine from storage and transport, so
that the same engine runs against memory, Redis or SQL stores and against the
Graph API or a recording sender.

# Key Interfaces

  - SessionStore: finds, upserts and saves the per-user session pointer.
  - ChatbotStore and AccountStore: the source of flow graphs and account credentials.
  - Sender: the outbound "send message as this account" capability.
  - DistributedLocker: serializes turns for the same session across replicas.
  - Dispatcher: decouples webhook acknowledgment from event processing.
*/
package ports
