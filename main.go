// abilinker links the ABI dumps of a library into the ABI of the library.
package main

import "github.com/abitools/abilinker/cmd"

func main() {
	cmd.Execute()
}
