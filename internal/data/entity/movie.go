package entity

type Movie struct {
	Base
	Title             string `db:"title"`
	DurationInMinutes int    `db:"duration_in_minutes"`
}
