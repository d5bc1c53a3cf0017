/*
Package domain contains the core domain models of the chatflow engine.

It defines the flow graph produced by the visual builder, the per-user session
pointer, chatbots and accounts, inbound events and outbound payloads. This
package is kept pure and free of I/O, following Hexagonal Architecture
principles.

# Key Entities

  - FlowGraph: nodes and edges. Node data is a closed sum type keyed by NodeKind.
  - Edge: connects an output handle of a node to another node.
  - Session: the current node of one end user on one account.
  - Chatbot: a flow bound to an account, with a mode and a tester allow-list.
  - Event / Turn: a classified inbound event and the context it runs against.
  - Payload: what the engine asks the transport to send.
*/
package domain
