// Package catalog holds the fixed set of drugs and locations a game is played with.
package catalog

import (
	"fmt"
	"strings"
)

type Drug struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

var Drugs = []Drug{
	{ID: "acid", Name: "Acid", Slug: "acid"},
	{ID: "weed", Name: "Weed", Slug: "weed"},
	{ID: "ludes", Name: "Ludes", Slug: "ludes"},
	{ID: "speed", Name: "Speed", Slug: "speed"},
	{ID: "heroin", Name: "Heroin", Slug: "heroin"},
	{ID: "cocaine", Name: "Cocaine", Slug: "cocaine"},
}

var Locations = []Location{
	{ID: "queens", Name: "Queens", Slug: "queens"},
	{ID: "bronx", Name: "The Bronx", Slug: "bronx"},
	{ID: "brooklyn", Name: "Brooklyn", Slug: "brooklyn"},
	{ID: "jersey", Name: "Jersey City", Slug: "jersey"},
	{ID: "central", Name: "Central Park", Slug: "central"},
	{ID: "coney", Name: "Coney Island", Slug: "coney"},
}

// DrugBySlug looks a drug up by its URL slug (case-insensitive)
func DrugBySlug(slug string) (Drug, error) {
	slug = normalize(slug)
	for _, d := range Drugs {
		if d.Slug == slug {
			return d, nil
		}
	}
	return Drug{}, fmt.Errorf("unknown drug: %q", slug)
}

func DrugByID(id string) (Drug, error) {
	for _, d := range Drugs {
		if d.ID == id {
			return d, nil
		}
	}
	return Drug{}, fmt.Errorf("unknown drug id: %q", id)
}

// LocationBySlug looks a location up by its URL slug (case-insensitive)
func LocationBySlug(slug string) (Location, error) {
	slug = normalize(slug)
	for _, l := range Locations {
		if l.Slug == slug {
			return l, nil
		}
	}
	return Location{}, fmt.Errorf("unknown location: %q", slug)
}

func LocationByID(id string) (Location, error) {
	for _, l := range Locations {
		if l.ID == id {
			return l, nil
		}
	}
	return Location{}, fmt.Errorf("unknown location id: %q", id)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
