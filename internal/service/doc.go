// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and stores
// (defined in internal/store) to fulfill application features.
//
// Each service focuses on one domain area: topics and their generation
// requests, cards, and study sessions. Services receive dependencies through
// constructor injection, apply transactional boundaries when operations span
// multiple stores, and translate store-level errors into the sentinels the
// API layer maps to status codes.
//
// The two quota-gated entry points live here: StudyService.StartSession and
// TopicService.RequestGeneration both consult the subscription service's
// gate before doing any work, and record usage atomically with the work
// itself when allowed.
package service
