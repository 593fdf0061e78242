package worker

import (
	"errors"
	"testing"

	"pherosim/catalog"
	"pherosim/engine"
	"pherosim/models"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCodec(t *testing.T) {
	Convey("Given encoded commands", t, func() {
		Convey("Each decodes back to the same command", func() {
			commands := []Command{
				Init{Width: 3, Height: 2, Entities: []*models.Entity{{ID: 4, Kind: catalog.STONE, Position: models.Position{X: 1}}}},
				FloodFill{Sources: []engine.Source{{Position: models.Position{X: 2, Y: 1}, PheromoneType: catalog.FOOD, OwnerID: 2, Quantity: 40, Stale: true}}},
				SetEmitterQuantity{EntityID: 9, Quantity: 0},
				ChangeEmitterType{EntityID: 9, PheromoneType: catalog.LIGHT},
				Disperse{Timestamp: 1234},
			}
			for _, cmd := range commands {
				data, err := Encode(cmd)
				So(err, ShouldBeNil)
				decoded, err := DecodeCommand(data)
				So(err, ShouldBeNil)
				So(decoded, ShouldResemble, cmd)
			}
		})

		Convey("The envelope carries the type tag", func() {
			data, err := Encode(Disperse{Timestamp: 5})
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, `{"type":"DISPERSE_PHEROMONES","payload":{"timestamp":5}}`)
		})

		Convey("Unknown tags are rejected", func() {
			_, err := DecodeCommand([]byte(`{"type":"TELEPORT","payload":{}}`))
			So(errors.Is(err, ErrUnknownMessage), ShouldBeTrue)
			_, err = DecodeMessage([]byte(`{"type":"INIT","payload":{}}`))
			So(errors.Is(err, ErrUnknownMessage), ShouldBeTrue)
		})

		Convey("Malformed envelopes are errors", func() {
			_, err := DecodeCommand([]byte(`{"type":`))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a pheromone reply", t, func() {
		diff := models.Diff{}
		diff.Put(models.Position{X: 12, Y: 7}, catalog.WATER, 0, 35.5)
		diff.Put(models.Position{X: 0, Y: 0}, catalog.WATER, 0, 0)
		data, err := Encode(Pheromones{Result: []models.Diff{diff}})
		So(err, ShouldBeNil)

		Convey("The diff keys survive the round trip", func() {
			msg, err := DecodeMessage(data)
			So(err, ShouldBeNil)
			decoded := msg.(Pheromones).Result[0]
			So(decoded, ShouldResemble, diff)

			var positions []models.Position
			So(decoded.Each(func(pos models.Position, _ models.Quantity) {
				positions = append(positions, pos)
			}), ShouldBeNil)
			So(positions, ShouldContain, models.Position{X: 12, Y: 7})
		})
	})
}
