package version

// Version is the single source of truth for the urlchain version,
// consumed by the CLI and the MCP server identity.
const Version = "0.3.1"
