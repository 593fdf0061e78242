package engine

import (
	"math/rand/v2"
	"testing"

	"pherosim/catalog"
	"pherosim/models"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func TestReverseFloodFill(t *testing.T) {
	Convey("Given a colony field whose decay spans ten hops", t, func() {
		cat := catalog.Default().WithOverrides(map[catalog.Type]catalog.Override{
			catalog.COLONY: {DecayAmount: 35},
		})
		sc := newContext(16, 1, cat)
		source := place(sc, emitter(1, models.Position{X: 0, Y: 0}, catalog.COLONY, 1, 350))
		sc.Recompute(catalog.COLONY, 1)
		So(sc.Grid.Get(models.Position{X: 9, Y: 0}, catalog.COLONY, 1), ShouldEqual, 35)
		So(sc.Grid.Get(models.Position{X: 10, Y: 0}, catalog.COLONY, 1), ShouldEqual, 0)

		Convey("Zeroing the sole emitter unwinds the entire chain", func() {
			diffs := sc.SetEmitterQuantity(source.ID, 0)
			So(len(diffs), ShouldEqual, 1)
			So(field(sc, catalog.COLONY, 1), ShouldBeEmpty)
			for x := 0; x < 10; x++ {
				So(diffs[0][models.Position{X: x}.Key()].Quantity, ShouldEqual, 0)
			}
		})

		Convey("Cells reachable from another source are restored to its decayed value", func() {
			place(sc, emitter(2, models.Position{X: 15, Y: 0}, catalog.COLONY, 1, 140))
			sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: models.Position{X: 15}, Quantity: 140}})
			So(sc.Grid.Get(models.Position{X: 12, Y: 0}, catalog.COLONY, 1), ShouldEqual, 35)
			So(sc.Grid.Get(models.Position{X: 8, Y: 0}, catalog.COLONY, 1), ShouldEqual, 70)

			sc.SetEmitterQuantity(source.ID, 0)
			So(sc.Grid.Get(models.Position{X: 0, Y: 0}, catalog.COLONY, 1), ShouldEqual, 0)
			So(sc.Grid.Get(models.Position{X: 8, Y: 0}, catalog.COLONY, 1), ShouldEqual, 0)
			So(sc.Grid.Get(models.Position{X: 12, Y: 0}, catalog.COLONY, 1), ShouldEqual, 35)
			So(sc.Grid.Get(models.Position{X: 14, Y: 0}, catalog.COLONY, 1), ShouldEqual, 105)
			So(field(sc, catalog.COLONY, 1), ShouldResemble, oracle(sc, catalog.COLONY, 1))
		})

		Convey("Lowering the emitter leaves the weaker field", func() {
			sc.SetEmitterQuantity(source.ID, 105)
			So(sc.Grid.Get(models.Position{X: 0, Y: 0}, catalog.COLONY, 1), ShouldEqual, 105)
			So(sc.Grid.Get(models.Position{X: 2, Y: 0}, catalog.COLONY, 1), ShouldEqual, 35)
			So(sc.Grid.Get(models.Position{X: 3, Y: 0}, catalog.COLONY, 1), ShouldEqual, 0)
		})

		Convey("Blocking the corridor cuts off everything behind the blocker", func() {
			wall := place(sc, stone(3, models.Position{X: 4, Y: 0}))
			sc.ReverseFloodFill(catalog.COLONY, 1, []models.Position{wall.Position})
			So(sc.Grid.Get(models.Position{X: 3, Y: 0}, catalog.COLONY, 1), ShouldEqual, 245)
			So(sc.Grid.Get(models.Position{X: 4, Y: 0}, catalog.COLONY, 1), ShouldEqual, 0)
			So(sc.Grid.Get(models.Position{X: 5, Y: 0}, catalog.COLONY, 1), ShouldEqual, 0)

			Convey("And removing the blocker refills it from a stale seed", func() {
				sc.RemoveFromGrid(wall)
				sc.RemoveEntity(wall.ID)
				sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: wall.Position, Stale: true}})
				So(sc.Grid.Get(models.Position{X: 5, Y: 0}, catalog.COLONY, 1), ShouldEqual, 175)
				So(field(sc, catalog.COLONY, 1), ShouldResemble, oracle(sc, catalog.COLONY, 1))
			})
		})

		Convey("Changing the emitter's substance moves its field", func() {
			diffs := sc.ChangeEmitterType(source.ID, catalog.LIGHT)
			So(len(diffs), ShouldEqual, 2)
			So(field(sc, catalog.COLONY, 1), ShouldBeEmpty)
			So(sc.Grid.Get(models.Position{X: 1, Y: 0}, catalog.LIGHT, 1), ShouldEqual, 349)
		})
	})

	Convey("Given an emitter in an open room", t, func() {
		sc := newContext(12, 12, nil)
		center := models.Position{X: 6, Y: 6}
		place(sc, emitter(1, center, catalog.ALERT, 1, 60))
		sc.Recompute(catalog.ALERT, 1)

		Convey("A frontier with no lost support changes nothing", func() {
			diff := sc.ReverseFloodFill(catalog.ALERT, 1, []models.Position{{X: 7, Y: 6}, {X: 8, Y: 6}})
			So(diff, ShouldBeEmpty)
			So(sc.Grid.Get(models.Position{X: 8, Y: 6}, catalog.ALERT, 1), ShouldEqual, 40)
		})

		Convey("Walling in the emitter keeps it and clears the outside", func() {
			id := 10
			for _, n := range sc.Grid.Moore(center) {
				place(sc, stone(id, n))
				id++
			}
			var frontier []models.Position
			for _, n := range sc.Grid.Moore(center) {
				frontier = append(frontier, n)
			}
			sc.ReverseFloodFill(catalog.ALERT, 1, frontier)
			So(field(sc, catalog.ALERT, 1), ShouldResemble, map[models.Position]float64{center: 60})
		})
	})
}

// Unwinding and repairing after any topology change equals a recompute from scratch.
func TestInvalidationEquivalence(t *testing.T) {
	const size = 20
	rng := rand.New(rand.NewPCG(3, 5))
	for trial := 0; trial < 30; trial++ {
		sc := newContext(size, size, nil)
		occupied := map[models.Position]bool{}
		free := func() models.Position {
			for {
				pos := models.Position{X: rng.IntN(size), Y: rng.IntN(size)}
				if !occupied[pos] {
					occupied[pos] = true
					return pos
				}
			}
		}

		id := 1
		var emitters []*models.Entity
		for i := 0; i < 4; i++ {
			emitters = append(emitters, place(sc, emitter(id, free(), catalog.COLONY, 1, float64(5+rng.IntN(25)))))
			id++
		}
		var walls []*models.Entity
		for i := 0; i < 30; i++ {
			walls = append(walls, place(sc, stone(id, free())))
			id++
		}
		sc.Recompute(catalog.COLONY, 1)

		for step := 0; step < 6; step++ {
			switch rng.IntN(4) {
			case 0:
				e := emitters[rng.IntN(len(emitters))]
				sc.SetEmitterQuantity(e.ID, 0)
			case 1:
				e := emitters[rng.IntN(len(emitters))]
				sc.SetEmitterQuantity(e.ID, float64(rng.IntN(int(e.Quantity)+1)))
			case 2:
				wall := place(sc, stone(id, free()))
				id++
				walls = append(walls, wall)
				sc.ReverseFloodFill(catalog.COLONY, 1, []models.Position{wall.Position})
			case 3:
				if len(walls) == 0 {
					continue
				}
				i := rng.IntN(len(walls))
				wall := walls[i]
				walls = append(walls[:i], walls[i+1:]...)
				sc.RemoveFromGrid(wall)
				sc.RemoveEntity(wall.ID)
				delete(occupied, wall.Position)
				sc.FloodFill(catalog.COLONY, 1, []Seed{{Position: wall.Position, Stale: true}})
			}
			require.Equal(t, oracle(sc, catalog.COLONY, 1), field(sc, catalog.COLONY, 1), "trial %d step %d", trial, step)
		}
	}
}
