package constant

// AsciiArtLogo is the banner printed above the root command help.
const AsciiArtLogo = `
  _ __ ___  _ __  / _|_ __ ___  _ __ | |_
 | '_ ` + "`" + ` _ \| '_ \| |_| '__/ _ \| '_ \| __|
 | | | | | | |_) |  _| | | (_) | | | | |_
 |_| |_| |_| .__/|_| |_|  \___/|_| |_|\__|
           |_|`
