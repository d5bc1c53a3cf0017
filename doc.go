/*
Package chatflow executes builder-authored conversation flows for messaging channels.

A flow is a graph of nodes (messages, quick replies, cards, carousels, media,
loops and end nodes) connected by edges that leave through named handles. Each
inbound event advances one user's session: the engine resolves the next node
from the current one, sends what each node renders and keeps going until a node
waits for input or the flow ends.

# Architecture

The Service wires three ports together:

  - a SessionStore holding the per-user pointer into the flow,
  - ChatbotStore and AccountStore resolving which flow answers a page,
  - a Sender delivering rendered payloads (the Messenger Graph API in production).

Adapters for memory, Redis and SQL stores live under pkg/adapters.

# Usage

	svc, err := chatflow.New(chatflow.Stores{
		Sessions: memory.NewSessionStore(),
		Chatbots: bots,
		Accounts: accounts,
	}, messenger.NewClient())
	if err != nil {
		log.Fatal(err)
	}

	// From a webhook handler:
	n, err := svc.Webhook(ctx, body, dispatch.NewInline(svc, logger))

For local authoring, Simulator runs a single flow in memory and Runner drives it
from a terminal.
*/
package chatflow
