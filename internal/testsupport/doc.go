// Package testsupport holds fixtures shared by package tests: temp-dir
// configurations, sized files, and a ready job store.
package testsupport
