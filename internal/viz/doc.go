// Package viz renders simulation output for the terminal and for files.
//
//   - [Styles.Summary]: a lipgloss panel with the outcome of a run
//   - [PlotProfile], [PlotTemperatures], [PlotTrace]: asciigraph charts
//   - [SaveProfilePlot]: profile snapshots as png, svg or pdf
//   - [LiveModel], [RunLive]: a bubbletea view that follows a running
//     simulation
//
// # Key Bindings
//
//	c, Tab - Cycle the plotted channel
//	t      - Cycle color themes
//	q      - Stop the run and quit
package viz
