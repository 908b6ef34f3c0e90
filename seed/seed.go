// Package seed embeds the default food catalog merged into the store on first
// start.
package seed

import _ "embed"

//go:embed foods.csv
var FoodsCSV []byte
