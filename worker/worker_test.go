package worker

import (
	"context"
	"testing"
	"time"

	"pherosim/catalog"
	"pherosim/engine"
	"pherosim/models"

	. "github.com/smartystreets/goconvey/convey"
)

func token(id int, pos models.Position, typ catalog.Type, quantity float64) *models.Entity {
	return &models.Entity{
		ID:            id,
		Kind:          catalog.TOKEN,
		Position:      pos,
		Width:         1,
		Height:        1,
		OwnerID:       1,
		PheromoneType: typ,
		Quantity:      quantity,
	}
}

func corridor(entities ...*models.Entity) Init {
	return Init{Width: 8, Height: 1, Entities: entities}
}

// only returns the single diff of a single PHEROMONES reply.
func only(replies []Message) models.Diff {
	So(replies, ShouldHaveLength, 1)
	msg, ok := replies[0].(Pheromones)
	So(ok, ShouldBeTrue)
	So(msg.Result, ShouldHaveLength, 1)
	return msg.Result[0]
}

func TestHandle(t *testing.T) {
	Convey("Given a worker", t, func() {
		w := New(catalog.Default())

		Convey("Commands before INIT are ignored", func() {
			So(w.Handle(FloodFill{Sources: []engine.Source{{PheromoneType: catalog.COLONY, OwnerID: 1, Quantity: 10}}}), ShouldBeEmpty)
			So(w.Handle(SetEmitterQuantity{EntityID: 1}), ShouldBeEmpty)
			So(w.sc, ShouldBeNil)
		})

		Convey("INIT computes the steady state fields of every emitter", func() {
			diff := only(w.Handle(corridor(token(1, models.Position{}, catalog.COLONY, 10))))
			So(diff["0,0"], ShouldResemble, models.Quantity{PheromoneType: catalog.COLONY, Quantity: 10, OwnerID: 1})
			So(diff["7,0"].Quantity, ShouldEqual, 3)

			Convey("FLOOD_FILL replies with one diff per substance and owner", func() {
				replies := w.Handle(FloodFill{Sources: []engine.Source{
					{Position: models.Position{X: 7}, PheromoneType: catalog.COLONY, OwnerID: 1, Quantity: 20},
					{Position: models.Position{X: 7}, PheromoneType: catalog.ALERT, OwnerID: 1, Quantity: 20},
				}})
				So(replies, ShouldHaveLength, 1)
				So(replies[0].(Pheromones).Result, ShouldHaveLength, 2)
				So(w.sc.Grid.Get(models.Position{X: 0}, catalog.COLONY, 1), ShouldEqual, 13)
			})

			Convey("Zeroing the emitter unwinds its field", func() {
				diff := only(w.Handle(SetEmitterQuantity{EntityID: 1, Quantity: 0}))
				So(diff, ShouldHaveLength, 8)
				for _, q := range diff {
					So(q.Quantity, ShouldEqual, 0)
				}
			})

			Convey("Changing the emitter's substance moves its field", func() {
				replies := w.Handle(ChangeEmitterType{EntityID: 1, PheromoneType: catalog.LIGHT})
				So(replies[0].(Pheromones).Result, ShouldHaveLength, 2)
				So(w.sc.Grid.Get(models.Position{X: 3}, catalog.LIGHT, 1), ShouldEqual, 7)
			})

			Convey("Blocking the corridor and asking for a reverse fill cuts the field", func() {
				wall := &models.Entity{ID: 2, Kind: catalog.STONE, Position: models.Position{X: 2}, Width: 1, Height: 1}
				So(w.Handle(AddEntity{Entity: wall}), ShouldBeEmpty)
				So(w.Handle(InsertInGrid{Entity: wall}), ShouldBeEmpty)
				diff := only(w.Handle(ReverseFloodFill{Sources: []engine.Source{
					{Position: wall.Position, PheromoneType: catalog.COLONY, OwnerID: 1},
				}}))
				So(diff["2,0"].Quantity, ShouldEqual, 0)
				So(diff["7,0"].Quantity, ShouldEqual, 0)
				So(w.sc.Grid.Get(models.Position{X: 1}, catalog.COLONY, 1), ShouldEqual, 9)

				Convey("And removing it refills from a stale source", func() {
					w.Handle(RemoveFromGrid{Entity: wall})
					w.Handle(RemoveEntity{Entity: wall})
					diff := only(w.Handle(FloodFill{Sources: []engine.Source{
						{Position: wall.Position, PheromoneType: catalog.COLONY, OwnerID: 1, Stale: true},
					}}))
					So(diff["7,0"].Quantity, ShouldEqual, 3)
				})
			})

			Convey("A second INIT rebuilds the mirror", func() {
				w.Handle(Init{Width: 2, Height: 2})
				So(w.sc.Grid.Width(), ShouldEqual, 2)
				So(w.sc.Grid.Get(models.Position{}, catalog.COLONY, 1), ShouldEqual, 0)
			})
		})

		Convey("A panicking command is dropped and the worker carries on", func() {
			w.Handle(corridor())
			So(w.Handle(InsertInGrid{}), ShouldBeNil)
			So(w.Handle(FloodFill{Sources: []engine.Source{
				{PheromoneType: catalog.COLONY, OwnerID: 1, Quantity: 5},
			}}), ShouldHaveLength, 1)
		})

		Convey("SET_PHEROMONE has no reply but feeds dispersion", func() {
			w.Handle(Init{Width: 1, Height: 1})
			So(w.Handle(SetPheromone{PheromoneType: catalog.WATER, Quantity: 6}), ShouldBeEmpty)
			w.Handle(SetPheromone{PheromoneType: catalog.COLD, Quantity: 120})

			Convey("Freezing water is reported as solids after the diffs", func() {
				replies := w.Handle(Disperse{Timestamp: 96})
				So(replies, ShouldHaveLength, 2)
				So(replies[0].Kind(), ShouldEqual, PHEROMONES)
				entities, ok := replies[1].(Entities)
				So(ok, ShouldBeTrue)
				So(entities.Solids["0,0"], ShouldResemble, engine.Solid{Kind: catalog.ICE, Quantity: 1})
			})
		})

		Convey("Dispersion reports turbine impulses", func() {
			turbine := &models.Entity{ID: 3, Kind: catalog.TURBINE, Width: 1, Height: 2, MaxThetaSpeed: models.DefaultMaxThetaSpeed}
			w.Handle(Init{
				Width:      1,
				Height:     3,
				Entities:   []*models.Entity{turbine},
				Pheromones: []engine.Source{{PheromoneType: catalog.WATER, Quantity: 60}},
			})
			replies := w.Handle(Disperse{Timestamp: 96})
			So(replies, ShouldHaveLength, 2)
			So(replies[1].(Turbines).EntityID, ShouldEqual, 3)
			So(replies[1].(Turbines).ThetaSpeed, ShouldAlmostEqual, 0.04)
		})

		Convey("A turbine no flow touches is not reported", func() {
			turbine := &models.Entity{ID: 3, Kind: catalog.TURBINE, Width: 1, Height: 2, MaxThetaSpeed: models.DefaultMaxThetaSpeed}
			w.Handle(Init{
				Width:      1,
				Height:     3,
				Entities:   []*models.Entity{turbine},
				Pheromones: []engine.Source{{Position: models.Position{Y: 2}, PheromoneType: catalog.WATER, Quantity: 60}},
			})
			replies := w.Handle(Disperse{Timestamp: 96})
			So(replies, ShouldHaveLength, 1)
			So(replies[0].Kind(), ShouldEqual, PHEROMONES)
		})
	})
}

func TestStart(t *testing.T) {
	Convey("Given a running worker", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		commands := make(chan Command, 8)
		messages := New(catalog.Default()).Start(ctx, commands)

		receive := func() Message {
			select {
			case msg := <-messages:
				return msg
			case <-time.After(time.Second):
				return nil
			}
		}

		Convey("Commands are applied in arrival order", func() {
			commands <- corridor(token(1, models.Position{}, catalog.COLONY, 10))
			commands <- SetEmitterQuantity{EntityID: 1, Quantity: 0}
			commands <- FloodFill{Sources: []engine.Source{
				{Position: models.Position{X: 7}, PheromoneType: catalog.COLONY, OwnerID: 1, Quantity: 4},
			}}

			So(receive(), ShouldHaveSameTypeAs, Pheromones{})
			zeroed := receive().(Pheromones)
			So(zeroed.Result[0]["0,0"].Quantity, ShouldEqual, 0)
			filled := receive().(Pheromones)
			So(filled.Result[0], ShouldHaveLength, 4)
			So(filled.Result[0]["4,0"].Quantity, ShouldEqual, 1)
		})

		Convey("Closing the command channel closes the message channel", func() {
			close(commands)
			_, ok := <-messages
			So(ok, ShouldBeFalse)
		})
	})
}
