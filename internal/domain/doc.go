// Package domain holds the core entities of the application: users and their
// subscription plans, topics and the flashcards generated for them, study
// sessions with their reviews, and the daily usage counters that quota
// decisions are made from. Nothing in this package touches storage or
// transport.
package domain
