// Package enrichment refreshes creator metrics from the marketplace.
//
// The Scheduler picks a priority-ordered batch bounded by the batch size and
// the remaining daily quota. The Runner walks that batch sequentially: one
// paced search per creator, an exact handle match, then two independent
// writes (the profile merge and the dated snapshot). A spent quota stops
// further calls for the rest of the run; every other item failure is counted
// and the batch continues.
package enrichment
