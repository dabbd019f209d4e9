// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of long-running operations
// like generating flashcards for a topic, ensuring they don't block HTTP
// request handling and can recover from application restarts. Task rows are
// persisted by the request path; the runner rebuilds them into executable
// tasks through registered reconstructors.
package task
