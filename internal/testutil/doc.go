// Package testutil holds fixtures shared by tests across packages.
package testutil
