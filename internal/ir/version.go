package ir

// EngineVersion is recorded on every persisted run.
const EngineVersion = "0.3.0"

// RuleDocumentVersion is the only rule document version Load accepts.
const RuleDocumentVersion = 1
