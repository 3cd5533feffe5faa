// Package sensor produces air-quality readings.
//
// Two sources exist: a Bosch BMxx80 on I²C through periph.io, and a
// deterministic simulation for development machines without the chip.
// Both stamp each reading with the time it was taken and score it with a
// QualityScorer.
package sensor
