package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// APIKeyHeaderName carries the project API key on every call.
const APIKeyHeaderName = "x-api-key"

// ProjectHeaderName carries the project id the client was configured for.
const ProjectHeaderName = "x-project-id"
