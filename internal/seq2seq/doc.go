// Package seq2seq implements the neural translation model: a bidirectional
// LSTM encoder, additive attention and an LSTM decoder, with teacher-forced
// forward/backward passes for training, greedy and beam decoding for serving,
// and safetensors artifacts bound to the vocabularies they were trained on.
package seq2seq
