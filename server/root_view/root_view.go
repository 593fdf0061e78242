package root_view

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"pherosim/server/cell_views"
	"pherosim/server/fastview"
	"pherosim/sim"

	channerics "github.com/niceyeti/channerics/channels"
)

// batchWindow is how long element updates are coalesced before being sent.
const batchWindow = time.Millisecond * 20

// RootView is the index page: the container of every view and the merge of their updates.
type RootView struct {
	views   []fastview.ViewComponent
	initial cell_views.Frame
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the views over the simulation's snapshots. initial is rendered into
// the page before any update arrives.
func NewRootView(
	ctx context.Context,
	initial sim.Snapshot,
	snapshots <-chan sim.Snapshot,
) (*RootView, error) {
	first := cell_views.Convert(initial)
	views, err := fastview.NewViewBuilder[sim.Snapshot, cell_views.Frame]().
		WithContext(ctx).
		WithModel(snapshots, cell_views.Convert).
		WithView(func(done <-chan struct{}, frames <-chan cell_views.Frame) fastview.ViewComponent {
			return cell_views.NewFieldGrid(done, frames)
		}).
		WithView(func(done <-chan struct{}, frames <-chan cell_views.Frame) fastview.ViewComponent {
			return cell_views.NewFieldSurface(done, first, frames)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}

	return &RootView{
		views:   views,
		initial: first,
		updates: fanIn(ctx.Done(), views),
	}, nil
}

// Updates returns the merged element updates of every view.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Initial is the frame the page template is executed with.
func (rv *RootView) Initial() cell_views.Frame {
	return rv.initial
}

// Parse defines the page template, with the websocket bootstrap script, and returns its
// name. The func-map it installs is shared by every child view.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(
		template.FuncMap{
			"add":  func(i, j int) int { return i + j },
			"sub":  func(i, j int) int { return i - j },
			"mult": func(i, j int) int { return i * j },
			"div":  func(i, j int) int { return i / j },
		})

	var bodySpec string
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			return "", parseErr
		}
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<title>pherosim</title>
			<script>
				const ws = new WebSocket("ws://" + window.location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened")
				};
				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};
				// Each message is a list of element updates: set attributes, or the text for "textContent".
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						if (!ele) {
							continue
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}
			</script>
		</head>
		<body style="display:flex; flex-wrap:wrap; font-family:sans-serif;">
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}

// fanIn merges the views' updates into one batched channel.
func fanIn(
	done <-chan struct{},
	views []fastview.ViewComponent,
) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		batchWindow)
}

// batchify coalesces updates per element id and flushes them once every rate, so an update
// arriving after the source goes quiet is still delivered on the next flush.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		flush := time.NewTicker(rate)
		defer flush.Stop()

		pending := map[string]fastview.EleUpdate{}
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					return
				}
				for _, update := range updates {
					pending[update.EleId] = update
				}
			case <-flush.C:
				if len(pending) == 0 {
					continue
				}
				select {
				case output <- slicedVals(pending):
					pending = map[string]fastview.EleUpdate{}
				case <-done:
					return
				}
			}
		}
	}()

	return output
}

// slicedVals returns the values of a map as a slice.
func slicedVals[T1 comparable, T2 any](mp map[T1]T2) (sliced []T2) {
	for _, v := range mp {
		sliced = append(sliced, v)
	}
	return
}
