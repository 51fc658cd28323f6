// Package audio implements the PCM codec and audio buffer primitives:
// conversion between normalized float samples and 16-bit little-endian
// PCM, base64 transport encoding, format math, and bounded buffers for
// capture-side accumulation.
package audio
