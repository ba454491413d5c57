// Package models lists the translation models kumajala can use: the trained
// neural artifacts found in the models directory, one per target language,
// and the OpenAI chat models available to the generative fallback.
package models
