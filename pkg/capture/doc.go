// Package capture owns the input side of the session: microphone
// sampling in fixed-size PCM blocks and timer-driven still-image
// grabbing. Both producers are independent and neither may stall the
// audio hardware callback.
package capture
