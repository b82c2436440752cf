// Package testsupport provides shared fixtures for package tests: temp-dir
// configurations, an opened SQLite store, and creator seeding helpers.
package testsupport
