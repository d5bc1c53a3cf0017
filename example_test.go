package chatflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/pkg/dsl"
)

// ExampleSimulator plays a flow in memory, the way the run command and the
// MCP simulate tool do.
func ExampleSimulator() {
	b := dsl.New()
	b.Start("start").Go("ask")
	b.QuickReply("ask", "Coffee or tea?", "Coffee", "Tea").
		Reply(0, "coffee").
		Reply(1, "tea")
	b.End("coffee", "Coffee it is.")
	b.End("tea", "Tea it is.")

	flow, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	sim, err := chatflow.NewSimulator(flow)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	step, err := sim.Say(ctx, "hi")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(chatflow.FormatPayload(step.Payloads[0], 1))
	fmt.Println(step.Result.Outcome)

	step, err = sim.Choose(ctx, 2)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(chatflow.FormatPayload(step.Payloads[0], 1))
	fmt.Println(step.Result.Outcome)

	// Output:
	// Coffee or tea?
	//
	// 1. Coffee
	// 2. Tea
	// awaiting
	// Tea it is.
	// ended
}

// ExampleParseFlow decodes a document saved by the visual builder.
func ExampleParseFlow() {
	flow, err := chatflow.ParseFlow([]byte(`{
		"nodes": [
			{"id": "1", "type": "start", "data": {"label": "Start"}},
			{"id": "2", "type": "message", "data": {"message": "Hello!"}}
		],
		"edges": [{"id": "e1-2", "source": "1", "target": "2"}]
	}`))
	if err != nil {
		log.Fatal(err)
	}
	start, _ := flow.StartNode()
	fmt.Println(len(flow.Nodes), start.ID, flow.Edges[0].Target)

	// Output:
	// 2 1 2
}
