// Package generation defines the boundary between the application and the
// language model used for natural-language task capture and task summaries.
//
// Implementations live under internal/platform (see platform/gemini). The
// interfaces here take and return domain types only, so services and
// background jobs never depend on a model SDK.
package generation
