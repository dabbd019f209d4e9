// Package generation provides interfaces and error values for interacting
// with external AI/LLM services for content generation. It abstracts the
// details of LLM API integration (Gemini), allowing the application to
// generate flashcards for a topic without coupling to specific external
// services.
package generation
