/*
Package payload provides structured payloads for comm messages.

Document is a JSON-like tree decoded from JSON, YAML or TOML. Its shallow
clone copies the top-level map; its deep clone copies every nested map and
slice.

Vector is a series of float64 samples with gonum-backed arithmetic. Its
shallow clone shares the sample slice; its deep clone does not.
*/
package payload
