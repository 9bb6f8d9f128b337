// Package streamdown converts Markdown to HTML incrementally.
//
// This package is built for text that arrives piece by piece, such as the
// output of a language model. Input is fed in arbitrary chunks and every
// construct that completes within a chunk is delivered to a Sink as one HTML
// fragment. Nothing is ever revised: once a fragment is delivered it is final,
// and the concatenation of all fragments is independent of how the input was
// split.
//
// Core properties:
//   - One character at a time through a block automaton and an inline overlay
//   - A resumption stack for constructs nested inside other constructs
//   - At most one fragment per Write, plus one on Close
//   - Malformed or unfinished constructs degrade to literal text
//
// Example:
//
//	conv := streamdown.New(streamdown.NewWriterSink(os.Stdout))
//	for chunk := range chunks {
//		if _, err := conv.WriteString(chunk); err != nil {
//			log.Fatal(err)
//		}
//	}
//	if err := conv.Close(); err != nil {
//		log.Fatal(err)
//	}
//
// Render, Parse, HTTPRender and Replay wrap a Converter around an io.Reader.
// NewHandler serves converted documents over HTTP while they convert.
package streamdown
