// Package model defines the provider-agnostic abstraction a collaboration
// unit uses to obtain a reply for a list of canonical messages.
//
// A Model returns the provider's raw reply (an SDK message, a message.Variant,
// a plain string, ...). The reply is not interpreted here: the conversation
// log hands it to the canonicalizer, which is why Invoke returns any.
//
// Providers (e.g. OpenAI, Anthropic) implement Model in sub-packages and also
// contribute a message.Recognizer for their SDK reply types. MockModel serves
// tests and examples.
package model
