// Package marketplace wraps the marketplace creator search API.
//
// Client issues authenticated keyword searches and classifies failures with
// the services error markers: network errors, 429 and 5xx responses are
// transient, configured provider codes mean the daily quota is spent, and other
// 4xx responses are validation failures. ExactMatch accepts only a candidate
// whose username equals the searched handle, and ParseMinorUnits converts
// provider money strings into integer minor units without floating point.
package marketplace
