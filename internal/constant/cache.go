package constant

const CacheSep = "|"
