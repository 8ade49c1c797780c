// Command nxbridge installs Nexus Mods collections into a Mod Organizer 2
// instance without Vortex: it downloads every mod archive, extracts and
// places each mod, resolves FOMOD choices, and writes MO2's modlist.txt and
// plugins.txt in dependency order.
package main

func main() {
	Execute()
}
