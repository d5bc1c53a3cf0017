/*
Package dsl provides a Go DSL for programmatically constructing chatflow flow graphs.

It produces the same domain.FlowGraph the visual builder saves, so flows can be
generated, tested or scaffolded in Go with IDE autocompletion instead of
hand-written JSON.

Example usage:

	b := dsl.New()

	b.Start("start").Go("ask")

	b.QuickReply("ask", "Coffee or tea?", "Coffee", "Tea").
		Reply(0, "coffee").
		Reply(1, "tea")

	b.End("coffee", "Coffee it is.")
	b.End("tea", "Tea it is.")

	flow, err := b.Build()
*/
package dsl
