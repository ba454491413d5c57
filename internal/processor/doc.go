// Package processor contains the logic behind the kumajala sub commands.
// It wires the dictionary store, the neural model registry and the
// generative service into a resolver for translation, and drives training,
// corpus import, enrichment, evaluation and model listing. This package
// serves as the main coordinator between all other components.
package processor
