// Package blobstore is an embeddable, in-process object store with a
// two-level namespace: named containers holding named byte objects.
//
// State lives only in memory and is lost when the process exits. An Engine
// is constructed explicitly and shared by pointer; there is no global
// instance.
//
// Bytes enter the store through an OutgoingValue, which must be finished
// before a Container handle will accept it, and leave it as an
// IncomingValue that can be consumed whole or drained in chunks:
//
//	eng := blobstore.New()
//	c, _ := eng.NewContainer("photos")
//
//	out := blobstore.NewOutgoingValue()
//	w, _ := out.WriteBody()
//	w.Write([]byte("hello"))
//	w.Close()
//	out.Finish()
//	c.WriteData("greeting.txt", out)
//
//	in, _ := c.GetData("greeting.txt", 0, 3) // inclusive: "hell"
//	data, _ := in.Consume()
//
// Listings are served by ObjectNames, a cursor over a sorted snapshot of the
// names present when it was created.
package blobstore
