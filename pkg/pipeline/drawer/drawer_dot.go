package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1"

	"github.com/askiada/fuel-migrate/pkg/pipeline/measure"
)

// DOTDrawer renders the stages of a pipeline as a Graphviz DOT graph.
type DOTDrawer struct {
	graph    graph.Graph[string, string]
	steps    map[string]struct{}
	fileName string
}

// NewDOTDrawer creates a new DOT drawer writing to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	return &DOTDrawer{
		fileName: fileName,
		graph:    graph.New(graph.StringHash, graph.Directed()),
		steps:    make(map[string]struct{}),
	}
}

// AddStep adds a step to the pipeline graph.
func (d *DOTDrawer) AddStep(name string) error {
	err := d.graph.AddVertex(name)
	if err != nil {
		return errors.Wrap(err, "unable to add vertex")
	}

	d.steps[name] = struct{}{}

	return nil
}

// AddLink adds a link between parent and children steps.
func (d *DOTDrawer) AddLink(parentName, childrenName string) error {
	err := d.graph.AddEdge(parentName, childrenName)
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childrenName)
	}

	return nil
}

// Draw creates the DOT file.
func (d *DOTDrawer) Draw() error {
	file, err := os.Create(d.fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.fileName)
	}
	defer file.Close()

	err = d.DrawTo(file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.fileName)
	}

	return errors.Wrapf(file.Close(), "unable to close dot file %s", d.fileName)
}

// DrawTo writes the DOT graph to wrt.
func (d *DOTDrawer) DrawTo(wrt io.Writer) error {
	return dot(d.graph, wrt)
}

// SetTotalTime sets the total time for the step.
func (d *DOTDrawer) SetTotalTime(stepName string, startTime time.Time) error {
	_, properties, err := d.graph.VertexWithProperties(stepName)
	if err != nil {
		return errors.Wrapf(err, "unable to get %s vertex properties", stepName)
	}

	properties.Attributes["xlabel"] = round(time.Since(startTime)).String()

	return nil
}

const maxRGB = 240

// AddMeasure colours every edge from blue (fastest) to red (slowest) according to
// the average time elements spent waiting on it, and labels every step with its
// average duration.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	allChanElapsed := make(map[time.Duration]string)
	sortedAllChanElapsed := []time.Duration{}

	for _, step := range msr.AllMetrics() {
		for _, info := range step.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}

			if _, ok := allChanElapsed[info.Elapsed]; ok {
				continue
			}

			allChanElapsed[info.Elapsed] = ""

			sortedAllChanElapsed = append(sortedAllChanElapsed, info.Elapsed)
		}
	}

	if len(sortedAllChanElapsed) > 0 {
		sort.Slice(sortedAllChanElapsed, func(i, j int) bool {
			return sortedAllChanElapsed[i] > sortedAllChanElapsed[j]
		})

		maxValue := sortedAllChanElapsed[0]
		minValue := sortedAllChanElapsed[len(sortedAllChanElapsed)-1]

		for curr := range allChanElapsed {
			fraction := 1.0
			if maxValue > minValue {
				fraction = float64(curr-minValue) / float64(maxValue-minValue)
			}

			red := maxRGB * fraction
			blue := maxRGB - red

			colour, err := colors.RGB(uint8(red), 0, uint8(blue))
			if err != nil {
				return errors.Wrap(err, "unable to get colour")
			}

			allChanElapsed[curr] = colour.ToHEX().String()
		}
	}

	err := d.updateMetrics(msr, allChanElapsed)
	if err != nil {
		return errors.Wrap(err, "unable to update metrics")
	}

	return nil
}

func (d *DOTDrawer) updateMetrics(msr measure.Measure, allChanElapsed map[time.Duration]string) error {
	for name, step := range msr.AllMetrics() {
		_, properties, err := d.graph.VertexWithProperties(name)
		if err != nil {
			return errors.Wrap(err, "unable to get vertex properties")
		}

		stepAvg := step.AVGDuration()
		if stepAvg != 0 {
			properties.Attributes["xlabel"] = fmt.Sprintf("%d x %s", step.Count(), stepAvg)
		}

		if step.GetTotalDuration() > 0 {
			properties.Attributes["xlabel"] += ", end: " + round(step.GetTotalDuration()).String()
		}

		for inputStep, info := range step.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}

			err := d.graph.UpdateEdge(inputStep, name,
				graph.EdgeAttribute("label", info.Elapsed.String()),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", allChanElapsed[info.Elapsed]),
			)
			if err != nil {
				return errors.Wrapf(err, "unable to update edge %s -> %s", inputStep, name)
			}
		}
	}

	return nil
}

func round(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(time.Millisecond)
	}

	return d.Round(time.Microsecond)
}

const dotTemplate = `strict {{.Kind}} {
	{{- range .GraphAttributes}}
	{{.Key}}="{{.Value}}";
	{{- end}}
	{{- range .Nodes}}
	"{{.Name}}" [{{if .Label}} label={{.Label}},{{end}}{{range .Attributes}} {{.Key}}="{{.Value}}",{{end}} weight={{.Weight}} ];
	{{- end}}
	{{- range .Edges}}
	"{{.From}}" {{$.Operator}} "{{.To}}" [{{range .Attributes}} {{.Key}}="{{.Value}}",{{end}} weight={{.Weight}} ];
	{{- end}}
}
`

type attribute struct {
	Key   string
	Value string
}

type dotNode struct {
	Name       string
	Label      string
	Attributes []attribute
	Weight     int
}

type dotEdge struct {
	From       string
	To         string
	Attributes []attribute
	Weight     int
}

type dotGraph struct {
	Kind            string
	Operator        string
	GraphAttributes []attribute
	Nodes           []dotNode
	Edges           []dotEdge
}

// sortedAttributes flattens attrs in key order so the output is stable between runs.
func sortedAttributes(attrs map[string]string) []attribute {
	res := make([]attribute, 0, len(attrs))
	for k, v := range attrs {
		res = append(res, attribute{Key: k, Value: v})
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })

	return res
}

func dot(gra graph.Graph[string, string], wrt io.Writer) error {
	desc, err := describe(gra)
	if err != nil {
		return errors.Wrap(err, "unable to describe graph")
	}

	tpl, err := template.New("dot").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "unable to parse dot template")
	}

	return errors.Wrap(tpl.Execute(wrt, desc), "unable to render dot template")
}

// describe collects the vertices and edges of gra. Steps carrying an xlabel get an
// HTML label with the step name above its timings.
func describe(gra graph.Graph[string, string]) (dotGraph, error) {
	desc := dotGraph{
		Kind:            "graph",
		Operator:        "--",
		GraphAttributes: []attribute{{Key: "rankdir", Value: "LR"}},
	}

	if gra.Traits().IsDirected {
		desc.Kind = "digraph"
		desc.Operator = "->"
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	for name, adjacencies := range adjacencyMap {
		_, props, err := gra.VertexWithProperties(name)
		if err != nil {
			return desc, errors.Wrapf(err, "unable to get %s vertex properties", name)
		}

		node := dotNode{Name: name, Weight: props.Weight}

		others := make(map[string]string, len(props.Attributes))
		for k, v := range props.Attributes {
			if k == "xlabel" {
				node.Label = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, name, v)

				continue
			}

			others[k] = v
		}

		node.Attributes = sortedAttributes(others)
		desc.Nodes = append(desc.Nodes, node)

		for target, edge := range adjacencies {
			desc.Edges = append(desc.Edges, dotEdge{
				From:       name,
				To:         target,
				Weight:     edge.Properties.Weight,
				Attributes: sortedAttributes(edge.Properties.Attributes),
			})
		}
	}

	sort.Slice(desc.Nodes, func(i, j int) bool { return desc.Nodes[i].Name < desc.Nodes[j].Name })
	sort.Slice(desc.Edges, func(i, j int) bool {
		if desc.Edges[i].From != desc.Edges[j].From {
			return desc.Edges[i].From < desc.Edges[j].From
		}

		return desc.Edges[i].To < desc.Edges[j].To
	})

	return desc, nil
}
