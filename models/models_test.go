package models

import (
	"errors"
	"testing"

	"pherosim/catalog"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPositionKeys(t *testing.T) {
	Convey("Position keys", t, func() {
		Convey("Encode and decode are exact inverses", func() {
			for _, pos := range []Position{{0, 0}, {12, 7}, {-3, 40}, {1000, -1}} {
				decoded, err := ParseKey(pos.Key())
				So(err, ShouldBeNil)
				So(decoded, ShouldResemble, pos)
			}
			So(Position{X: 4, Y: 9}.Key(), ShouldEqual, "4,9")
		})

		Convey("Malformed keys are rejected", func() {
			for _, key := range []string{"", "4", "a,1", "1,b", "1;2"} {
				_, err := ParseKey(key)
				So(errors.Is(err, ErrMalformedKey), ShouldBeTrue)
			}
		})

		Convey("Neighborhoods list orthogonal cells first", func() {
			p := Position{X: 5, Y: 5}
			ortho := p.Orthogonal()
			So(ortho[0], ShouldResemble, Position{5, 4})
			So(ortho[2], ShouldResemble, Position{5, 6})
			moore := p.Moore()
			So(moore[:4], ShouldResemble, ortho[:])
			So(moore[6], ShouldResemble, Position{6, 6})
		})
	})
}

func TestEntity(t *testing.T) {
	Convey("Given a 2x3 turbine", t, func() {
		e := &Entity{Kind: catalog.TURBINE, Position: Position{X: 2, Y: 1}, Width: 2, Height: 3}

		Convey("Its footprint covers six cells", func() {
			So(len(e.Footprint()), ShouldEqual, 6)
			So(e.Covers(Position{3, 3}), ShouldBeTrue)
			So(e.Covers(Position{4, 3}), ShouldBeFalse)
			So(e.Covers(Position{2, 0}), ShouldBeFalse)
		})

		Convey("It is a turbine but not an emitter", func() {
			So(e.IsTurbine(), ShouldBeTrue)
			So(e.IsEmitter(), ShouldBeFalse)
		})

		Convey("A zero-sized entity still covers its position", func() {
			token := &Entity{Kind: catalog.TOKEN, Position: Position{1, 1}, PheromoneType: catalog.COLONY}
			So(token.Footprint(), ShouldResemble, []Position{{1, 1}})
			So(token.IsEmitter(), ShouldBeTrue)
		})
	})
}

func TestDiff(t *testing.T) {
	Convey("Diffs keep the last write per position", t, func() {
		d := Diff{}
		d.Put(Position{1, 2}, catalog.COLONY, 1, 10)
		d.Put(Position{1, 2}, catalog.COLONY, 1, 4)
		d.Merge(Diff{"3,3": {PheromoneType: catalog.COLONY, Quantity: 7, OwnerID: 1}})
		So(len(d), ShouldEqual, 2)
		So(d["1,2"].Quantity, ShouldEqual, 4)

		seen := map[Position]float64{}
		So(d.Each(func(pos Position, q Quantity) { seen[pos] = q.Quantity }), ShouldBeNil)
		So(seen[Position{3, 3}], ShouldEqual, 7)

		d["bad"] = Quantity{}
		So(errors.Is(d.Each(func(Position, Quantity) {}), ErrMalformedKey), ShouldBeTrue)
	})
}

func TestConvert(t *testing.T) {
	Convey("When the debug level is converted", t, func() {
		level := Convert(DebugLevel)

		Convey("Its dimensions match the glyph rows", func() {
			So(level.Width, ShouldEqual, 12)
			So(level.Height, ShouldEqual, 9)
		})

		Convey("The turbine glyphs form a single 2x2 turbine", func() {
			var turbines []*Entity
			for _, e := range level.Entities {
				if e.IsTurbine() {
					turbines = append(turbines, e)
				}
			}
			So(len(turbines), ShouldEqual, 1)
			So(turbines[0].Position, ShouldResemble, Position{3, 6})
			So(turbines[0].Width, ShouldEqual, 2)
			So(turbines[0].Height, ShouldEqual, 2)
		})

		Convey("Colony and food tokens are player owned emitters", func() {
			emitters := 0
			for _, e := range level.Entities {
				if e.IsEmitter() && e.PheromoneType != catalog.HEAT {
					So(e.OwnerID, ShouldEqual, Player)
					emitters++
				}
			}
			So(emitters, ShouldEqual, 2)
		})

		Convey("Ids are unique and water is poured", func() {
			ids := map[int]bool{}
			for _, e := range level.Entities {
				So(ids[e.ID], ShouldBeFalse)
				ids[e.ID] = true
			}
			So(len(level.Pours), ShouldEqual, 2)
			So(level.Pours[0].PheromoneType, ShouldEqual, catalog.WATER)
		})
	})
}
