// Package gemini provides an implementation of the generation.Generator
// interface that uses Google's Gemini API to generate flashcards for a topic.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's domain logic to Google's external Gemini AI
// service. It renders an embedded prompt template for the topic, requests a
// JSON response, retries transient failures with exponential backoff, and
// converts the structured response into domain Card objects. Blocked content,
// malformed responses, and API rejections map to the sentinel errors in the
// generation package.
package gemini
