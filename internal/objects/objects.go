// Package objects contains some objects need used by schema and biz.
// To avoid circular dependencies, we put them here.
// NOTE: there are some history issue, the json tag is not consistent.
// To reduce the maintenance cost, we keep the json tag as it is.
// For the new objects, we will use the same json tag, just use the camel case.
package objects
