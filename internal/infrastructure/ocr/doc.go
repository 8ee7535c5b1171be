// Package ocr adapts Tesseract to the application's OCREngine port.
//
// Two engines are available. The CLI engine runs the tesseract binary as a
// subprocess and needs nothing but the binary on PATH. The library engine links
// libtesseract through gosseract and is only compiled with the "gosseract" build
// tag; without it the engine reports OcrUnavailable.
//
// Every engine decodes the payload in Go first, so an empty or corrupt buffer is
// reported as MalformedInput without starting Tesseract. Decoded images are
// optionally normalised (grayscale, upscaling, inversion of dark backgrounds,
// contrast) before recognition.
package ocr
