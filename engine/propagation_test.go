package engine

import (
	"math/rand/v2"
	"testing"

	"pherosim/catalog"
	"pherosim/models"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func TestFloodFill(t *testing.T) {
	Convey("Given a corridor one cell high", t, func() {
		sc := newContext(352, 1, nil)
		origin := models.Position{X: 0, Y: 0}

		Convey("A full colony source decays by one per hop", func() {
			diff := sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: origin, Quantity: 350}})
			So(sc.Grid.Get(models.Position{X: 5, Y: 0}, catalog.COLONY, 1), ShouldEqual, 345)
			So(sc.Grid.Get(models.Position{X: 349, Y: 0}, catalog.COLONY, 1), ShouldEqual, 1)
			So(sc.Grid.Get(models.Position{X: 350, Y: 0}, catalog.COLONY, 1), ShouldEqual, 0)
			So(len(diff), ShouldEqual, 350)
			So(diff["5,0"].Quantity, ShouldEqual, 345)
			So(diff["5,0"].OwnerID, ShouldEqual, 1)
		})

		Convey("Sources above the cap are clamped", func() {
			sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: origin, Quantity: 1000}})
			So(sc.Grid.Get(origin, catalog.COLONY, 1), ShouldEqual, 350)
		})

		Convey("A stone wall stops propagation and holds nothing", func() {
			wall := models.Position{X: 3, Y: 0}
			place(sc, stone(1, wall))
			sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: origin, Quantity: 350}})
			So(sc.Grid.Get(models.Position{X: 2, Y: 0}, catalog.COLONY, 1), ShouldEqual, 348)
			So(sc.Grid.Get(wall, catalog.COLONY, 1), ShouldEqual, 0)
			So(sc.Grid.Get(models.Position{X: 4, Y: 0}, catalog.COLONY, 1), ShouldEqual, 0)
		})

		Convey("A weaker source does not lower a stronger field", func() {
			sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: origin, Quantity: 350}})
			diff := sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: models.Position{X: 10, Y: 0}, Quantity: 100}})
			So(diff, ShouldBeEmpty)
			So(sc.Grid.Get(models.Position{X: 10, Y: 0}, catalog.COLONY, 1), ShouldEqual, 340)
		})

		Convey("Unknown substances are a no-op", func() {
			So(sc.FloodFill("PLASMA", 1, []Seed{{Position: origin, Quantity: 1}}), ShouldBeEmpty)
		})
	})

	Convey("Given an open grid", t, func() {
		sc := newContext(9, 9, nil)
		center := models.Position{X: 4, Y: 4}

		Convey("Diagonal cells are reached by two orthogonal hops", func() {
			sc.FloodFill(catalog.ALERT, 1, []Seed{{Position: center, Quantity: 60}})
			So(sc.Grid.Get(models.Position{X: 5, Y: 4}, catalog.ALERT, 1), ShouldEqual, 50)
			So(sc.Grid.Get(models.Position{X: 5, Y: 5}, catalog.ALERT, 1), ShouldEqual, 40)
		})

		Convey("Dispersing substances register their positive cells", func() {
			sc.FloodFill(catalog.ALERT, 1, []Seed{{Position: center, Quantity: 60}})
			So(len(sc.LiveEntries(catalog.ALERT)), ShouldEqual, len(field(sc, catalog.ALERT, 1)))
			So(sc.LiveEntries(catalog.COLONY), ShouldBeEmpty)
		})

		Convey("A stale seed takes the emitter's quantity", func() {
			place(sc, emitter(1, center, catalog.COLONY, 1, 200))
			sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: center, Stale: true}})
			So(sc.Grid.Get(center, catalog.COLONY, 1), ShouldEqual, 200)
		})

		Convey("A stale seed without an emitter takes what its neighbors support", func() {
			sc.Grid.Set(models.Position{X: 3, Y: 4}, catalog.COLONY, 1, 100)
			sc.Grid.Set(models.Position{X: 4, Y: 3}, catalog.COLONY, 1, 120)
			sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: center, Stale: true}})
			So(sc.Grid.Get(center, catalog.COLONY, 1), ShouldEqual, 119)
			So(sc.Grid.Get(models.Position{X: 5, Y: 4}, catalog.COLONY, 1), ShouldEqual, 118)
		})

		Convey("Sources are grouped per substance and owner", func() {
			diffs := sc.FloodFillSources([]Source{
				{Position: center, PheromoneType: catalog.COLONY, OwnerID: 1, Quantity: 10},
				{Position: center, PheromoneType: catalog.COLONY, OwnerID: 2, Quantity: 10},
				{Position: models.Position{X: 0, Y: 0}, PheromoneType: catalog.COLONY, OwnerID: 1, Quantity: 10},
			})
			So(len(diffs), ShouldEqual, 2)
			So(diffs[0]["0,0"].OwnerID, ShouldEqual, 1)
			So(diffs[1]["4,4"].OwnerID, ShouldEqual, 2)
		})
	})
}

// Shuffling the seeds of one flood fill never changes the resulting field.
func TestFloodFillOrderIndependence(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 20; trial++ {
		var walls []models.Position
		for i := 0; i < 40; i++ {
			walls = append(walls, models.Position{X: rng.IntN(24), Y: rng.IntN(24)})
		}
		var seeds []Seed
		for i := 0; i < 8; i++ {
			seeds = append(seeds, Seed{
				Position: models.Position{X: rng.IntN(24), Y: rng.IntN(24)},
				Quantity: float64(10 + rng.IntN(50)),
			})
		}

		build := func(order []Seed) map[models.Position]float64 {
			sc := newContext(24, 24, nil)
			for i, w := range walls {
				place(sc, stone(i+1, w))
			}
			sc.FloodFill(catalog.ALERT, 1, order)
			return field(sc, catalog.ALERT, 1)
		}

		expected := build(seeds)
		for shuffle := 0; shuffle < 5; shuffle++ {
			shuffled := append([]Seed(nil), seeds...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			require.Equal(t, expected, build(shuffled), "trial %d shuffle %d", trial, shuffle)
		}
	}
}

// Along N unblocked hops the value is max(0, Q - N*decay).
func TestMonotonicDecay(t *testing.T) {
	cases := []struct {
		typ   catalog.Type
		q     float64
		decay float64
	}{
		{catalog.COLONY, 350, 1},
		{catalog.ALERT, 60, 10},
		{catalog.FOOD, 100, 40},
		{catalog.HEAT, 150, 15},
	}
	for _, tc := range cases {
		sc := newContext(40, 1, nil)
		sc.FloodFill(tc.typ, 0, []Seed{{Position: models.Position{}, Quantity: tc.q}})
		for n := 0; n < 40; n++ {
			want := max(0, tc.q-float64(n)*tc.decay)
			require.Equal(t, want, sc.Grid.Get(models.Position{X: n}, tc.typ, 0), "%s hop %d", tc.typ, n)
		}
	}
}
