// Package menu serves the versioned dish catalog orders are priced from.
//
// A version is published once and never edited, so an order line that
// copied its name and price from a version stays consistent with it. A
// price change is a new version.
package menu
