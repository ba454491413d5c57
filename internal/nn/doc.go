// Package nn holds the small set of numeric building blocks the translation
// model is made of: named parameters with gradient accumulators, an LSTM cell,
// affine and embedding layers, softmax/cross-entropy helpers and the Adam
// optimiser. Everything runs on gonum dense storage.
package nn
