// Package browser exposes browser automation tools backed by the extension
// bridge: tab listing and management, navigation, element interaction, and
// page capture.
//
// Each tool maps to a wire operation sent to the connected extension. The
// optional tab_id parameter addresses a specific tab; without it the
// command targets the active tab of the default connection.
package browser
