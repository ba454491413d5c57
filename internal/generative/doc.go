// Package generative wraps external generative models (OpenAI and Gemini)
// used as the last translation tier and to enrich the training corpus.
//
// Provider calls are composed from small Generator decorators: a timeout,
// a circuit breaker, rate-limit retries, an in-memory cache and a fallback
// to a second provider. Every provider failure is a *GenerativeServiceError;
// failures that mean "try again later" match ErrUnavailable.
package generative
