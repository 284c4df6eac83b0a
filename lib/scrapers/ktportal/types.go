package ktportal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
)

type DiningTime string

const (
	Breakfast DiningTime = "breakfast"
	Lunch     DiningTime = "lunch"
	Dinner    DiningTime = "dinner"
)

// DiningTimes lists meal times in serving order.
var DiningTimes = []DiningTime{Breakfast, Lunch, Dinner}

func (d DiningTime) Valid() bool {
	return d == Breakfast || d == Lunch || d == Dinner
}

// CrawlTarget is one dining slot: the atomic unit of a meal query.
type CrawlTarget struct {
	Date       string // YYYY-MM-DD
	DiningTime DiningTime
	Restaurant string
	Campus     string
}

func (t CrawlTarget) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", t.Date, t.DiningTime, t.Restaurant, t.Campus)
}

// MenuRecord is one parsed menu. Items never contain the trailing
// kcal/price annotation lines of the portal's DISH block.
type MenuRecord struct {
	ID         int64
	Date       string
	DiningTime DiningTime
	Place      string
	Price      int
	Kcal       int
	Items      []string
}

// MenuID derives the record identity used for downstream dedup: the
// first 15 hex digits of md5("date_diningTime_place"). Pure function
// of its inputs, stable across runs.
func MenuID(date string, diningTime DiningTime, place string) int64 {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%s", date, diningTime, place)))
	id, err := strconv.ParseInt(hex.EncodeToString(sum[:])[:15], 16, 64)
	if err != nil {
		// 15 hex digits always fit in an int64
		panic(err)
	}
	return id
}

// CampusGrid lists the restaurants of one campus in query order.
type CampusGrid struct {
	Campus      string
	Restaurants []string
}

// Grid is a day's campus/restaurant layout. Enumeration order is
// fixed: campus, then restaurant, then meal time.
type Grid []CampusGrid

// DefaultGrid returns the known campus restaurant lists. The trailing
// space in "Special Food " is the exact wire value the portal expects.
func DefaultGrid() Grid {
	return Grid{
		{
			Campus: "Campus1",
			Restaurants: []string{
				"Korean Food (한식)",
				"Onedish Food (일품)",
				"Special Food ",
				"Faculty (능수관)",
			},
		},
		{
			Campus:      "Campus2",
			Restaurants: []string{"코너1"},
		},
	}
}

// Targets expands the grid into the full dining-slot set for one date.
func (g Grid) Targets(date string) []CrawlTarget {
	targets := make([]CrawlTarget, 0, g.Size())
	for _, campus := range g {
		for _, restaurant := range campus.Restaurants {
			for _, diningTime := range DiningTimes {
				targets = append(targets, CrawlTarget{
					Date:       date,
					DiningTime: diningTime,
					Restaurant: restaurant,
					Campus:     campus.Campus,
				})
			}
		}
	}
	return targets
}

// Size returns the number of targets per day.
func (g Grid) Size() int {
	n := 0
	for _, campus := range g {
		n += len(campus.Restaurants) * len(DiningTimes)
	}
	return n
}
