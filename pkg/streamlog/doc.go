/*
Package streamlog turns the interleaved diagnostic text that agents emit while they run into
progressively rendered, colorized panel markup.

An [Adapter] is a write sink. Producers hand it arbitrary chunks of text through [Adapter.Consume]
or its [io.Writer] form. Each chunk is stripped of terminal color codes, scanned for a task field
that is surfaced immediately through a [Notifier], and recolored: the chain-entry marker advances a
four-color cycle and the two role labels take whichever color the cycle currently holds. Cleaned
chunks accumulate in a line buffer until a chunk containing a newline arrives, at which point the
whole buffer is rendered once to the bound [Surface] and cleared.

Colored regions use the inline span syntax understood by package markup:

	:green[Entering new CrewAgentExecutor chain]

# Usage

	a := streamlog.New(panel, streamlog.WithNotifier(toasts))
	defer a.Close()
	pipeline := crew.NewRecommendationPipeline(client, tools, a)

One adapter serves one run. It holds no state across runs and never fails on its input.
*/
package streamlog
