// Package classifier turns raw webhook callbacks into domain events and decides
// which of them reach the engine.
package classifier
