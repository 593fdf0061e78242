package fastview

import (
	"context"
	"html/template"
	"strconv"
	"sync"
	"testing"

	channerics "github.com/niceyeti/channerics/channels"
	. "github.com/smartystreets/goconvey/convey"
)

type labelView struct {
	id      string
	updates <-chan []EleUpdate
}

func newLabelView(id string) ViewBuilderFunc[string] {
	return func(done <-chan struct{}, labels <-chan string) ViewComponent {
		return &labelView{
			id: id,
			updates: channerics.Convert(done, labels, func(label string) []EleUpdate {
				return []EleUpdate{{EleId: id, Ops: []Op{{Key: "textContent", Value: label}}}}
			}),
		}
	}
}

func (lv *labelView) Updates() <-chan []EleUpdate { return lv.updates }

func (lv *labelView) Parse(t *template.Template) (string, error) {
	_, err := t.Parse(`{{ define "` + lv.id + `" }}<span id="` + lv.id + `"></span>{{ end }}`)
	return lv.id, err
}

func TestViewBuilder(t *testing.T) {
	Convey("Given a view builder", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		input := make(chan int)
		vb := NewViewBuilder[int, string]().WithContext(ctx)

		Convey("Build fails without views", func() {
			_, err := vb.WithModel(input, strconv.Itoa).Build()
			So(err, ShouldEqual, ErrNoViews)
		})

		Convey("Build fails without a model", func() {
			_, err := vb.WithView(newLabelView("a")).Build()
			So(err, ShouldEqual, ErrNoModel)
		})

		Convey("Every view receives every converted item", func() {
			views, err := vb.
				WithModel(input, strconv.Itoa).
				WithView(newLabelView("a")).
				WithView(newLabelView("b")).
				Build()
			So(err, ShouldBeNil)
			So(views, ShouldHaveLength, 2)

			results := make([][]EleUpdate, len(views))
			var wg sync.WaitGroup
			for i, view := range views {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results[i] = <-view.Updates()
				}()
			}
			input <- 42
			wg.Wait()
			a, b := results[0], results[1]
			So(a[0].EleId, ShouldEqual, "a")
			So(a[0].Ops[0].Value, ShouldEqual, "42")
			So(b[0].EleId, ShouldEqual, "b")
			So(b[0].Ops[0].Value, ShouldEqual, "42")

			Convey("And the views close when the context is cancelled", func() {
				cancel()
				for range views[0].Updates() {
				}
				_, open := <-views[0].Updates()
				So(open, ShouldBeFalse)
			})
		})
	})
}
