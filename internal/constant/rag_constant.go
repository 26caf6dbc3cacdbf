package constant

// Distance metrics supported by collections.
const (
	MetricCosine    = "cosine"
	MetricDot       = "dot"
	MetricEuclidean = "euclidean"
)

// Embedding task types, passed through to providers that distinguish them.
const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

// NoContextMarker is injected into the generation prompt when retrieval
// returns nothing. The model decides how to decline; the pipeline never
// short-circuits an empty result set on its own.
const NoContextMarker = "NO CONTEXT FOUND: the document store returned no relevant passages for this question."

// AnswerSystemInstruction constrains generation to supplied context only.
const AnswerSystemInstruction = "You answer questions using only the provided context. If the context does not contain the answer, say so plainly instead of guessing."
