// Command doctreectl is a demo CLI exercising the doctree engine
// end to end: create, mutate, replay, undo and connect all operate on
// one local document persisted as a snapshot file between invocations
// (spec.md §2's "host ... UI, server, demo CLI").
package main

func main() {
	Execute()
}
